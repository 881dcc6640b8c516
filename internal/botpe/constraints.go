package botpe

// Provider limits for message content. Lengths are in characters.
const (
	MaxTextBody         = 4096
	MaxButtonTitle      = 20
	MaxReplyButtons     = 3
	MaxHeaderText       = 60
	MaxListButtonText   = 20
	MaxListRowTitle     = 24
	MaxListSectionTitle = 24
	MaxListRowDesc      = 72
	MaxListRows         = 10
	MaxFooterText       = 60
	MaxMediaCaption     = 1024
	MaxImageSizeMB      = 5
	MaxVideoSizeMB      = 16
	MaxAudioSizeMB      = 16
	MaxDocumentSizeMB   = 100
)

const ellipsis = "…"

// Clip shortens s to at most max runes, marking the cut with an ellipsis.
func Clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return string(runes[:1])
	}
	return string(runes[:max-1]) + ellipsis
}
