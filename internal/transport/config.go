package transport

// Method is the sending method a tenant picked in its settings.
type Method string

const (
	MethodDefault        Method = "default"
	MethodGmail          Method = "gmail"
	MethodOffice365      Method = "office365"
	MethodClientPostmark Method = "client_postmark"
	MethodClientMailgun  Method = "client_mailgun"
)

// Transport identifiers a resolved Config can carry. The default method
// carries whichever platform backend is configured (smtp, resend or postmark).
const (
	TransportSMTP      = "smtp"
	TransportResend    = "resend"
	TransportGmail     = "gmail"
	TransportOffice365 = "office365"
	TransportPostmark  = "postmark"
	TransportMailgun   = "mailgun"
)

// Uncapped reports whether the method is paid for by the tenant, so the
// platform quota does not apply.
func (m Method) Uncapped() bool {
	switch m {
	case MethodGmail, MethodOffice365, MethodClientPostmark, MethodClientMailgun:
		return true
	}
	return false
}

// Settings is the tenant's mail settings snapshot carried in the job payload.
// It never holds credentials.
type Settings struct {
	Method             Method `json:"email_sending_method"`
	SendingUserID      string `json:"gmail_sending_user_id,omitempty"`
	ReplyToEmail       string `json:"reply_to_email,omitempty"`
	ReplyToName        string `json:"reply_to_name,omitempty"`
	CustomSendingEmail string `json:"custom_sending_email,omitempty"`
	EmailFromName      string `json:"email_from_name,omitempty"`
	Locale             string `json:"locale,omitempty"`
}

// Config is a resolved, attempt-scoped transport configuration.
type Config struct {
	Transport   string
	Method      Method
	FromAddress string
	FromName    string

	APIKey string
	Domain string
	Token  string
	EU     bool

	// FellBack is set when the configured method could not be used.
	FellBack bool
}

// Wipe clears every secret. Delivery calls it on every exit path.
func (c *Config) Wipe() {
	if c == nil {
		return
	}
	c.APIKey = ""
	c.Domain = ""
	c.Token = ""
}
