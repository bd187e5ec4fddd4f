package discord

// Button is a clickable link on the presence card. Discord shows at most two.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Timestamps drives the elapsed timer. Start is a Unix time in milliseconds.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// Assets holds image keys uploaded to the Discord application and their
// tooltips.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Activity is the payload of a SET_ACTIVITY command.
type Activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Buttons    []Button    `json:"buttons,omitempty"`
	Instance   bool        `json:"instance,omitempty"`
}

// User is the Discord account reported in the READY dispatch.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
}
