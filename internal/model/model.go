package model

import "encoding/json"

// --- stability text-to-image ---

type TextPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type TextToImageRequest struct {
	CfgScale    float64      `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Sampler     string       `json:"sampler"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps"`
	TextPrompts []TextPrompt `json:"text_prompts"`
}

type Artifact struct {
	Base64       string `json:"base64"`
	Seed         int64  `json:"seed"`
	FinishReason string `json:"finishReason"` // SUCCESS, CONTENT_FILTERED or ERROR
}

type TextToImageResp struct {
	Artifacts []Artifact `json:"artifacts"`
}

type StabilityError struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// --- com.atproto.server.createSession ---

type CreateSessionReq struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type CreateSessionResp struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

// --- com.atproto.repo.uploadBlob ---

// Blob is the descriptor the PDS hands back for uploaded content. The
// typed fields are for reading only: a Blob decoded from JSON keeps the
// exact bytes it came from and encodes back to them, so the record embeds
// whatever the PDS sent, fields unknown here included.
type Blob struct {
	Type     string  `json:"$type"`
	Ref      BlobRef `json:"ref"`
	MimeType string  `json:"mimeType"`
	Size     int64   `json:"size"`

	raw string
}

func (b Blob) MarshalJSON() ([]byte, error) {
	if b.raw != "" {
		return []byte(b.raw), nil
	}
	type plain Blob
	return json.Marshal(plain(b))
}

func (b *Blob) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	type plain Blob
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = Blob(p)
	b.raw = string(data)
	return nil
}

// Raw returns the JSON the blob was decoded from, or "" for a blob built
// in code.
func (b Blob) Raw() string { return b.raw }

type BlobRef struct {
	Link string `json:"$link"`
}

type UploadBlobResp struct {
	Blob *Blob `json:"blob"`
}

// --- com.atproto.repo.createRecord (app.bsky.feed.post) ---

const (
	PostCollection  = "app.bsky.feed.post"
	EmbedImagesType = "app.bsky.embed.images"
)

type AspectRatio struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type EmbedImage struct {
	Alt         string       `json:"alt"`
	Image       Blob         `json:"image"`
	AspectRatio *AspectRatio `json:"aspectRatio,omitempty"`
}

type EmbedImages struct {
	Type   string       `json:"$type"`
	Images []EmbedImage `json:"images"`
}

type PostRecord struct {
	Type      string       `json:"$type"`
	Text      string       `json:"text"`
	CreatedAt string       `json:"createdAt"`
	Embed     *EmbedImages `json:"embed,omitempty"`
}

type CreateRecordReq struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     PostRecord `json:"record"`
}

type CreateRecordResp struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// XRPCError is the body every XRPC endpoint returns on a non-2xx status.
type XRPCError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
