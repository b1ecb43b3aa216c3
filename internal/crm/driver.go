package crm

import "context"

// Driver is the browser boundary used by Session. Every element operation
// addresses a frame by name; an empty frame is the top-level document.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	// Count returns how many elements match selector, or zero when the frame
	// is not loaded yet.
	Count(ctx context.Context, frame, selector string) (int, error)
	// SetValue replaces the value of the first element matching selector.
	SetValue(ctx context.Context, frame, selector, value string) error
	// Click clicks the index-th match. With preferLink the first <a> inside
	// the element is clicked instead when present.
	Click(ctx context.Context, frame, selector string, index int, preferLink bool) error
	// SelectOption selects the option of a <select> whose trimmed text equals
	// text case-insensitively and reports whether one was found.
	SelectOption(ctx context.Context, frame, selector, text string) (bool, error)
	HTML(ctx context.Context, frame string) (string, error)
	Close() error
}
