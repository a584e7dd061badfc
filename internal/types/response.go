package types

const defaultImageMimeType = "image/png"

// Served describes which credential and model fulfilled a request.
type Served struct {
	Model           string `json:"model"`
	CredentialIndex int    `json:"credential_index"`
	Attempts        int    `json:"attempts"`
}

type TextResult struct {
	Text string `json:"text"`
	Served
}

// ImageResult holds base64 image data, or Text when the provider answered
// with text instead of an image.
type ImageResult struct {
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"-"`
	Text     string `json:"text,omitempty"`
	Served
}

func (r *ImageResult) HasImage() bool { return r.Data != "" }

// DataURL renders the image as a data: URL, or "" for text-only results.
func (r *ImageResult) DataURL() string {
	if r.Data == "" {
		return ""
	}
	mime := r.MimeType
	if mime == "" {
		mime = defaultImageMimeType
	}
	return "data:" + mime + ";base64," + r.Data
}
