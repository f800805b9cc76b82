package email

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"

	"dotmac/internal/common"
)

// sendMail is swapped out in tests
var sendMail = smtp.SendMail

type SendSmtpOpts struct {
	To     []User
	Cc     []User
	Bcc    []User
	Sender User

	Smtp        SmtpConfig
	Message     Message
	ServiceLogs chan<- common.ServiceLog
}

type Message struct {
	Body   []byte
	Title  string
	Images map[string]MessageAttachment
}

type MessageAttachment struct {
	Data []byte
	Type string
}

type User struct {
	Address string
	Name    string
}

func (u User) String() string {
	if u.Name == "" {
		return u.Address
	}
	return fmt.Sprintf("%s <%s>", u.Name, u.Address)
}

type SmtpConfig struct {
	Hostname string
	Port     int
	Username string
	Password string
}

func (c SmtpConfig) IsConfigured() bool {
	return c.Hostname != "" && c.Port != 0
}

func (o SendSmtpOpts) Validate() error {
	errs := []error{}
	if len(o.To) == 0 {
		errs = append(errs, fmt.Errorf("missing receivers"))
	}
	for receiverIndex, receiver := range o.To {
		if receiver.Address == "" {
			errs = append(errs, fmt.Errorf("missing receiver address for receiver[%v]", receiverIndex))
		}
	}
	if o.Sender.Address == "" {
		errs = append(errs, fmt.Errorf("missing sender address"))
	}
	if o.Message.Title == "" {
		errs = append(errs, fmt.Errorf("missing message title"))
	}
	if len(o.Message.Body) == 0 {
		errs = append(errs, fmt.Errorf("missing message body"))
	}
	if !o.Smtp.IsConfigured() {
		errs = append(errs, fmt.Errorf("missing smtp hostname or port"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrorInvalidMessage}, errs...)...)
	}
	return nil
}

func joinUsers(users []User) (display []string, addresses []string) {
	for _, user := range users {
		display = append(display, user.String())
		addresses = append(addresses, user.Address)
	}
	return display, addresses
}

// compose renders the multipart/related message and returns it with the
// envelope recipients
func compose(opts SendSmtpOpts) ([]byte, []string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	to, toAddresses := joinUsers(opts.To)
	cc, ccAddresses := joinUsers(opts.Cc)
	_, bccAddresses := joinUsers(opts.Bcc)

	headers := [][2]string{
		{"From", opts.Sender.String()},
		{"To", strings.Join(to, ",")},
	}
	if len(cc) > 0 {
		headers = append(headers, [2]string{"Cc", strings.Join(cc, ",")})
	}
	headers = append(headers,
		[2]string{"Subject", opts.Message.Title},
		[2]string{"MIME-Version", "1.0"},
		[2]string{"Content-Type", "multipart/related; boundary=" + writer.Boundary()},
	)
	for _, header := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", header[0], header[1])
	}
	fmt.Fprint(&buf, "\r\n")

	htmlPart, _ := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	qp := quotedprintable.NewWriter(htmlPart)
	qp.Write(opts.Message.Body)
	qp.Close()

	for imageFilename, imageContent := range opts.Message.Images {
		imageHeader := make(textproto.MIMEHeader)
		imageHeader.Set("Content-Type", imageContent.Type)
		imageHeader.Set("Content-Transfer-Encoding", "base64")
		imageHeader.Set("Content-ID", fmt.Sprintf("<%s>", imageFilename))
		imageHeader.Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", imageFilename))
		imagePart, _ := writer.CreatePart(imageHeader)
		encoded := base64.StdEncoding.EncodeToString(imageContent.Data)
		for i := 0; i < len(encoded); i += 76 {
			end := min(i+76, len(encoded))
			imagePart.Write([]byte(encoded[i:end] + "\r\n"))
		}
	}
	writer.Close()

	recipients := append([]string{}, toAddresses...)
	recipients = append(recipients, ccAddresses...)
	recipients = append(recipients, bccAddresses...)
	return buf.Bytes(), recipients
}

func SendSmtp(opts SendSmtpOpts) error {
	serviceLogs := opts.ServiceLogs
	if serviceLogs == nil {
		serviceLogs = common.GetNoopServiceLog()
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("failed to validate input to Send: %w", err)
	}
	message, recipients := compose(opts)
	serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "composed message[%s] of size[%v bytes]", opts.Message.Title, len(message))

	var auth smtp.Auth
	if opts.Smtp.Username != "" {
		auth = smtp.PlainAuth("", opts.Smtp.Username, opts.Smtp.Password, opts.Smtp.Hostname)
	}
	smtpAddr := net.JoinHostPort(opts.Smtp.Hostname, strconv.Itoa(opts.Smtp.Port))
	if err := sendMail(smtpAddr, auth, opts.Sender.Address, recipients, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "email sent successfully to people['%s'] from address[%s]", strings.Join(recipients, "', '"), opts.Sender.Address)
	return nil
}
