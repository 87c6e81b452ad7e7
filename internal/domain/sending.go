package domain

// Provider identifies the outbound transport used for sending.
type Provider string

const (
	ProviderResend   Provider = "resend"
	ProviderSES      Provider = "ses"
	ProviderPostmark Provider = "postmark"
	ProviderLog      Provider = "log"
)

// EmailMessage is the fully-rendered message handed to a transport. By the
// time a message reaches this struct, template rendering is complete.
type EmailMessage struct {
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html"`
	Tag     string            `json:"tag,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}
