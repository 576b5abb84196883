package adapter

import "context"

// UploadAdapter stores a raw document file and returns its URL. Consumed
// before extraction when the input is a file rather than pasted text.
type UploadAdapter interface {
	Store(ctx context.Context, name string, content []byte) (url string, err error)
}
