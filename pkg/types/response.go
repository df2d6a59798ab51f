package types

import (
	"encoding/json"
	"slices"
)

// ImageMetadata contains basic technical information about an image
type ImageMetadata struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Format     string `json:"format"`
	ColorModel string `json:"color_model"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
}

// Histogram holds 256-bin per-channel pixel counts
type Histogram struct {
	Red       []int `json:"red"`
	Green     []int `json:"green"`
	Blue      []int `json:"blue"`
	Luminance []int `json:"luminance"`
}

// InfoPayload is the result of an info request
type InfoPayload struct {
	Metadata       ImageMetadata `json:"metadata"`
	Histogram      Histogram     `json:"histogram"`
	DominantColors []string      `json:"dominant_colors"`
	Description    string        `json:"description"`
}

// EditKind distinguishes the global and local variants of EditPayload
type EditKind string

const (
	EditGlobal EditKind = "global"
	EditLocal  EditKind = "local"
)

// EditPayload is the result of a global or local edit
type EditPayload struct {
	Kind            EditKind `json:"kind"`
	EditedImagePath string   `json:"edited_image_path"`
	Message         string   `json:"message"`

	// global variant
	EditsApplied []string        `json:"edits_applied,omitempty"`
	Parameters   *EditParameters `json:"parameters,omitempty"`

	// local variant
	Detected []Region `json:"detected_regions,omitempty"`
	Edited   []Region `json:"edited_regions,omitempty"`
}

// ClarifyPayload asks the user for guidance
type ClarifyPayload struct {
	Message          string   `json:"message"`
	SuggestedPrompts []string `json:"suggested_prompts"`
}

// ErrorPayload is the user-facing description of a failure
type ErrorPayload struct {
	Error   string    `json:"error"`
	Details string    `json:"details,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
}

// AssistantResponse is the tagged result of one request. At most one of the
// info, edit and clarify payloads is set; the error payload may accompany any
// action to signal partial failure. Values are built with the constructors
// below and are not modified afterwards: payloads are deep-copied on the way
// in and on the way out.
type AssistantResponse struct {
	action  ActionKind
	info    *InfoPayload
	edit    *EditPayload
	clarify *ClarifyPayload
	err     *ErrorPayload
}

// NewInfoResponse tags an info payload
func NewInfoResponse(p InfoPayload) AssistantResponse {
	p = p.clone()
	return AssistantResponse{action: ActionInfo, info: &p}
}

// NewEditResponse tags an edit payload with GlobalEdit or LocalEdit by its kind
func NewEditResponse(p EditPayload) AssistantResponse {
	action := ActionGlobalEdit
	if p.Kind == EditLocal {
		action = ActionLocalEdit
	}
	p = p.clone()
	return AssistantResponse{action: action, edit: &p}
}

// NewClarifyResponse builds a clarify payload under the given action.
// Answer and Clarify both use this shape.
func NewClarifyResponse(action ActionKind, p ClarifyPayload) AssistantResponse {
	p = p.clone()
	return AssistantResponse{action: action, clarify: &p}
}

// NewErrorResponse builds a response that only carries an error
func NewErrorResponse(action ActionKind, e ErrorPayload) AssistantResponse {
	return AssistantResponse{action: action, err: &e}
}

// NewQuitResponse is the end-of-session sentinel
func NewQuitResponse() AssistantResponse {
	return AssistantResponse{action: ActionQuit}
}

// WithError returns a copy of r carrying e
func (r AssistantResponse) WithError(e ErrorPayload) AssistantResponse {
	r.err = &e
	return r
}

// Action returns the action tag
func (r AssistantResponse) Action() ActionKind { return r.action }

// Info returns the info payload, if any
func (r AssistantResponse) Info() (InfoPayload, bool) {
	if r.info == nil {
		return InfoPayload{}, false
	}
	return r.info.clone(), true
}

// Edit returns the edit payload, if any
func (r AssistantResponse) Edit() (EditPayload, bool) {
	if r.edit == nil {
		return EditPayload{}, false
	}
	return r.edit.clone(), true
}

// Clarify returns the clarify payload, if any
func (r AssistantResponse) Clarify() (ClarifyPayload, bool) {
	if r.clarify == nil {
		return ClarifyPayload{}, false
	}
	return r.clarify.clone(), true
}

// Error returns the error payload, if any
func (r AssistantResponse) Error() (ErrorPayload, bool) {
	if r.err == nil {
		return ErrorPayload{}, false
	}
	return *r.err, true
}

func (p InfoPayload) clone() InfoPayload {
	p.Histogram = Histogram{
		Red:       slices.Clone(p.Histogram.Red),
		Green:     slices.Clone(p.Histogram.Green),
		Blue:      slices.Clone(p.Histogram.Blue),
		Luminance: slices.Clone(p.Histogram.Luminance),
	}
	p.DominantColors = slices.Clone(p.DominantColors)
	return p
}

func (p EditPayload) clone() EditPayload {
	p.EditsApplied = slices.Clone(p.EditsApplied)
	if p.Parameters != nil {
		params := *p.Parameters
		p.Parameters = &params
	}
	p.Detected = slices.Clone(p.Detected)
	p.Edited = slices.Clone(p.Edited)
	return p
}

func (p ClarifyPayload) clone() ClarifyPayload {
	p.SuggestedPrompts = slices.Clone(p.SuggestedPrompts)
	return p
}

// IsQuit reports whether the caller should end the session
func (r AssistantResponse) IsQuit() bool { return r.action == ActionQuit }

type responseJSON struct {
	Action  ActionKind      `json:"action"`
	Info    *InfoPayload    `json:"info,omitempty"`
	Edit    *EditPayload    `json:"edit,omitempty"`
	Clarify *ClarifyPayload `json:"clarify,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
}

// MarshalJSON renders the response with its populated payload only
func (r AssistantResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(responseJSON{
		Action:  r.action,
		Info:    r.info,
		Edit:    r.edit,
		Clarify: r.clarify,
		Error:   r.err,
	})
}

// String returns the indented JSON form of the response
func (r AssistantResponse) String() string {
	return marshalIndent(r)
}
