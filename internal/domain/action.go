package domain

// ActionKind discriminates the closed set of outbound action variants.
// Senders must switch exhaustively on it; adding a kind is a compile-visible
// change at every sender boundary.
type ActionKind int

const (
	// ActionText sends a plain text message.
	ActionText ActionKind = iota
	// ActionPhoto sends a local image file with an optional caption.
	ActionPhoto
)

// Action is one outbound reply step produced by a provider and consumed by a
// platform sender. It is an immutable value scoped to a single request.
//
// Exactly the fields of the active variant are meaningful:
//   - ActionText:  Body
//   - ActionPhoto: Path, Caption
type Action struct {
	Kind    ActionKind
	Body    string
	Path    string
	Caption string
}

// Text builds a text action.
func Text(body string) Action {
	return Action{Kind: ActionText, Body: body}
}

// Photo builds a photo action for a local file path with a caption.
func Photo(path, caption string) Action {
	return Action{Kind: ActionPhoto, Path: path, Caption: caption}
}

// CleanActions drops empty text actions, preserving order. Providers built
// from template files occasionally produce blank lines; the router strips
// them before delivery.
func CleanActions(in []Action) []Action {
	out := make([]Action, 0, len(in))
	for _, a := range in {
		if a.Kind == ActionText && a.Body == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}
