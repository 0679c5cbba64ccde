package models

import "image"

// OCRResult is produced by an external text extraction component.
type OCRResult struct {
	TextBlocks      []string           `json:"text_blocks"`
	FieldConfidence map[string]float64 `json:"field_confidence,omitempty"`
	Identifier      string             `json:"identifier,omitempty"`
	DocumentType    string             `json:"document_type,omitempty"`
	Confidence      float64            `json:"confidence"`
}

// Point is a 2D landmark in image pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned rectangle in image pixel coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// FaceResult is produced by an external face detection component.
type FaceResult struct {
	Present     bool      `json:"present"`
	BoundingBox *Box      `json:"bounding_box,omitempty"`
	Landmarks   []Point   `json:"landmarks,omitempty"`
	Embedding   []float64 `json:"embedding,omitempty"`
}

// HasFace is nil-safe.
func (f *FaceResult) HasFace() bool {
	return f != nil && f.Present
}
