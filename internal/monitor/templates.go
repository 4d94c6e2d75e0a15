package monitor

const templates = `
{{define "head"}}<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>sovagrid monitor</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>
<style>
body { font-family: ui-monospace, monospace; background: #111; color: #ddd; margin: 1.5rem; }
a { color: #8ab4f8; }
table.grid { border-collapse: collapse; }
table.grid th, table.grid td { border: 1px solid #333; padding: .25rem .5rem; min-width: 8rem; vertical-align: top; }
td.frame { background: #1d2330; }
td.disabled { color: #777; font-style: italic; }
td.selected { outline: 2px solid #e0b400; }
td.playing { background: #204a2a; }
td.error { background: #5a1f1f; }
.peer { color: #c58af9; font-size: .8em; }
.progress { height: 3px; background: #5fd38d; }
.status { color: #aaa; margin: .5rem 0; }
.offline { color: #f28b82; }
nav a { margin-right: .75rem; }
</style>
</head>{{end}}

{{define "nav"}}<nav>{{range .Topics}}<a href="/docs/{{.Name}}">{{.Title}}</a>{{end}}</nav>{{end}}

{{define "page"}}{{template "head"}}
<body>
<h1>sovagrid <small>{{.Server}}</small></h1>
{{template "nav" .}}
<div data-init="@get('/events')">{{.Grid}}</div>
</body>
</html>{{end}}

{{define "grid"}}<div id="grid">
{{if .View.Connected}}<p class="status">rev {{.View.Revision}}{{with .View.Status}} · {{.}}{{end}}</p>{{else}}<p class="status offline">disconnected{{with .View.Status}} · {{.}}{{end}}</p>{{end}}
{{with .View.Focus.Error}}<p class="status offline">compile error at {{.Pos.Line}}:{{.Pos.Frame}}: {{.Message}}</p>{{end}}
{{if .Lines}}<table class="grid">
<thead><tr>{{range .Lines}}<th>L{{.Index}} x{{.SpeedFactor}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}{{if .Frame}}<td class="frame{{if not .Frame.Enabled}} disabled{{end}}{{if .Selected}} selected{{end}}{{if .Playing}} playing{{end}}{{if .Error}} error{{end}}">{{label (deref .Frame)}}{{range .Peers}} <span class="peer">@{{.}}</span>{{end}}{{if .Playing}}<div class="progress" style="width: {{pct .Progress}}"></div>{{end}}</td>{{else}}<td></td>{{end}}{{end}}</tr>{{end}}</tbody>
</table>{{else}}<p>(empty scene)</p>{{end}}
</div>{{end}}

{{define "docs"}}{{template "head"}}
<body>
<h1><a href="/">sovagrid</a> guide</h1>
<ul>{{range .Topics}}<li><a href="/docs/{{.Name}}">{{.Title}}</a></li>{{end}}</ul>
</body>
</html>{{end}}

{{define "doc"}}{{template "head"}}
<body>
<p><a href="/">grid</a> · <a href="/docs">guide</a></p>
{{template "nav" .}}
<article>{{.Body}}</article>
</body>
</html>{{end}}
`
