package botpe

// MessageResponse is the acknowledgment BotPe returns for a queued message.
type MessageResponse struct {
	MessagingChannel string        `json:"messaging_channel"`
	Message          QueuedMessage `json:"message"`
}

// QueuedMessage identifies the provider queue entry for a send.
type QueuedMessage struct {
	QueueID       string `json:"queue_id"`
	MessageStatus string `json:"message_status"`
}

// MessageRequest is the generic body posted to /messages.
type MessageRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *Text        `json:"text,omitempty"`
	Image            *Media       `json:"image,omitempty"`
	Video            *Media       `json:"video,omitempty"`
	Document         *Media       `json:"document,omitempty"`
	Audio            *Media       `json:"audio,omitempty"`
	Sticker          *Media       `json:"sticker,omitempty"`
	Location         *Location    `json:"location,omitempty"`
	Contacts         []Contact    `json:"contacts,omitempty"`
	Interactive      *Interactive `json:"interactive,omitempty"`
}

type Text struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// Media references an uploaded asset by id or a public link.
type Media struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// Contact is a shared contact card.
type Contact struct {
	Addresses []ContactAddress `json:"addresses,omitempty"`
	Birthday  string           `json:"birthday,omitempty"`
	Emails    []ContactEmail   `json:"emails,omitempty"`
	Name      ContactName      `json:"name"`
	Org       *ContactOrg      `json:"org,omitempty"`
	Phones    []ContactPhone   `json:"phones,omitempty"`
	URLs      []ContactURL     `json:"urls,omitempty"`
}

type ContactAddress struct {
	Street      string `json:"street,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Zip         string `json:"zip,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Type        string `json:"type,omitempty"`
}

type ContactEmail struct {
	Email string `json:"email,omitempty"`
	Type  string `json:"type,omitempty"`
}

type ContactName struct {
	FormattedName string `json:"formatted_name"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	MiddleName    string `json:"middle_name,omitempty"`
	Suffix        string `json:"suffix,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
}

type ContactOrg struct {
	Company    string `json:"company,omitempty"`
	Department string `json:"department,omitempty"`
	Title      string `json:"title,omitempty"`
}

type ContactPhone struct {
	Phone string `json:"phone,omitempty"`
	WaID  string `json:"wa_id,omitempty"`
	Type  string `json:"type,omitempty"`
}

type ContactURL struct {
	URL  string `json:"url,omitempty"`
	Type string `json:"type,omitempty"`
}

// Interactive message types.
const (
	InteractiveList            = "list"
	InteractiveButton          = "button"
	InteractiveCatalog         = "catalog_message"
	InteractiveLocationRequest = "location_request_message"
	InteractiveCTAURL          = "cta_url"
	InteractiveVoiceCall       = "voice_call"
)

// Interactive covers every interactive variant; unused fields are omitted.
type Interactive struct {
	Type   string  `json:"type"`
	Header *Header `json:"header,omitempty"`
	Body   *Body   `json:"body,omitempty"`
	Footer *Footer `json:"footer,omitempty"`
	Action Action  `json:"action"`
}

// Header is either text or a media attachment.
type Header struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Image    *Media `json:"image,omitempty"`
	Video    *Media `json:"video,omitempty"`
	Document *Media `json:"document,omitempty"`
}

type Body struct {
	Text string `json:"text"`
}

type Footer struct {
	Text string `json:"text"`
}

// Action holds list sections, reply buttons, or a named action with parameters.
type Action struct {
	Button     string        `json:"button,omitempty"`
	Sections   []ListSection `json:"sections,omitempty"`
	Buttons    []ReplyButton `json:"buttons,omitempty"`
	Name       string        `json:"name,omitempty"`
	Parameters any           `json:"parameters,omitempty"`
}

type ListSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []ListRow `json:"rows"`
}

type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type ReplyButton struct {
	Type  string `json:"type"`
	Reply Reply  `json:"reply"`
}

type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CTAParameters configures a cta_url action.
type CTAParameters struct {
	DisplayText string `json:"display_text"`
	URL         string `json:"url"`
}

// VoiceCallParameters configures a voice_call action.
type VoiceCallParameters struct {
	DisplayText string `json:"display_text"`
	TTLMinutes  int    `json:"ttl_minutes,omitempty"`
	Payload     string `json:"payload,omitempty"`
}

// CatalogParameters configures a catalog_message action.
type CatalogParameters struct {
	ThumbnailProductRetailerID string `json:"thumbnail_product_retailer_id,omitempty"`
}

// ListMessage is the caller-facing shape of an interactive list.
type ListMessage struct {
	Header     string
	Body       string
	Footer     string
	ButtonText string
	Sections   []ListSection
}

// ButtonsMessage is the caller-facing shape of a reply-button message.
type ButtonsMessage struct {
	Header  *Header
	Body    string
	Footer  string
	Buttons []Reply
}

// CTAURLMessage is the caller-facing shape of a call-to-action button.
type CTAURLMessage struct {
	Header      *Header
	Body        string
	Footer      string
	DisplayText string
	URL         string
}
