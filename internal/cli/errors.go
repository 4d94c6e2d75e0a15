package cli

import "fmt"

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type noSceneError struct {
	server string
}

func (e noSceneError) Error() string {
	return fmt.Sprintf("no scene received from %s (is the server running? try `sovagrid sim`)", e.server)
}
