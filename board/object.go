package board

// ObjectType tags the drawable kind; the data payload shape depends on it.
type ObjectType string

const (
	Path       ObjectType = "path"
	Rectangle  ObjectType = "rectangle"
	Circle     ObjectType = "circle"
	Triangle   ObjectType = "triangle"
	Diamond    ObjectType = "diamond"
	Pentagon   ObjectType = "pentagon"
	Hexagon    ObjectType = "hexagon"
	Star       ObjectType = "star"
	Text       ObjectType = "text"
	StickyNote ObjectType = "sticky-note"
	Image      ObjectType = "image"
)

// Object is a single drawable entity. Owned by the Store; actions carry
// copies for replay, never the live pointer.
type Object struct {
	ID          string         `json:"id"`
	Type        ObjectType     `json:"type"`
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	Width       float64        `json:"width,omitempty"`
	Height      float64        `json:"height,omitempty"`
	Stroke      string         `json:"stroke,omitempty"`
	Fill        string         `json:"fill,omitempty"`
	StrokeWidth float64        `json:"strokeWidth,omitempty"`
	Opacity     float64        `json:"opacity,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   int64          `json:"createdAt"`
	UpdatedAt   int64          `json:"updatedAt"`
}

// Clone returns a deep copy, including the free-form data payload one level
// down. Nested slices inside data are shared; actions never mutate them.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := *o
	if o.Data != nil {
		c.Data = make(map[string]any, len(o.Data))
		for k, v := range o.Data {
			c.Data[k] = v
		}
	}
	return &c
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Type        *ObjectType    `json:"type,omitempty"`
	X           *float64       `json:"x,omitempty"`
	Y           *float64       `json:"y,omitempty"`
	Width       *float64       `json:"width,omitempty"`
	Height      *float64       `json:"height,omitempty"`
	Stroke      *string        `json:"stroke,omitempty"`
	Fill        *string        `json:"fill,omitempty"`
	StrokeWidth *float64       `json:"strokeWidth,omitempty"`
	Opacity     *float64       `json:"opacity,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

func (p *Patch) applyTo(o *Object) {
	if p == nil {
		return
	}
	if p.Type != nil {
		o.Type = *p.Type
	}
	if p.X != nil {
		o.X = *p.X
	}
	if p.Y != nil {
		o.Y = *p.Y
	}
	if p.Width != nil {
		o.Width = *p.Width
	}
	if p.Height != nil {
		o.Height = *p.Height
	}
	if p.Stroke != nil {
		o.Stroke = *p.Stroke
	}
	if p.Fill != nil {
		o.Fill = *p.Fill
	}
	if p.StrokeWidth != nil {
		o.StrokeWidth = *p.StrokeWidth
	}
	if p.Opacity != nil {
		o.Opacity = *p.Opacity
	}
	if p.Data != nil {
		if o.Data == nil {
			o.Data = make(map[string]any, len(p.Data))
		}
		for k, v := range p.Data {
			o.Data[k] = v
		}
	}
}

// Viewport is the shared pan/zoom state.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Settings holds board-wide presentation options.
type Settings struct {
	ShowGrid   bool   `json:"showGrid"`
	Background string `json:"background,omitempty"`
}

// Snapshot is a point-in-time copy of the shared state, safe to hand to the
// wire after the store moves on.
type Snapshot struct {
	Objects  map[string]*Object `json:"objects"`
	Viewport Viewport           `json:"viewport"`
	Settings Settings           `json:"settings"`
}

// Normalize fills the fields a peer's snapshot may omit: timestamps default
// to now, data to an empty map.
func (o *Object) Normalize(now int64) {
	if o.CreatedAt == 0 {
		o.CreatedAt = now
	}
	if o.UpdatedAt == 0 {
		o.UpdatedAt = now
	}
	if o.Data == nil {
		o.Data = map[string]any{}
	}
}
