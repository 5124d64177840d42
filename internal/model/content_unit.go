package model

// ContentUnit is one extracted piece of a document before segmentation:
// a run of text attributed to a page. Image-derived units carry the
// description text with its marker prefix already applied.
type ContentUnit struct {
	Text string
	Page int
}
