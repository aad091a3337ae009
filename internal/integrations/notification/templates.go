// internal/integrations/notification/templates.go
package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

var customerTemplate = template.Must(template.New("customer").Parse(`
<div style="background:#ffffff;padding:40px 0;font-family:Arial,sans-serif;">
  <table align="center" width="600" cellpadding="0" cellspacing="0" style="border-collapse:collapse;">
    <tr>
      <td style="padding:20px 0;border-bottom:1px solid #eee;font-size:20px;font-weight:600;color:#0C2340;letter-spacing:2px;text-transform:uppercase;">{{.Brand}}</td>
    </tr>
    <tr>
      <td style="padding:35px 0;">
        <h2 style="margin:0 0 20px 0;color:#0C2340;font-size:24px;">Hello, {{.Profile.FullName}}!</h2>
        <p style="font-size:16px;color:#333;line-height:1.6;">We received your visit request. Our team will contact you to confirm the date and time.</p>
        <p style="font-size:16px;color:#333;line-height:1.6;">
          <strong style="color:#0C2340;">Property of interest:</strong> {{.Profile.PropertyIdentifier}}<br/>
          <strong style="color:#0C2340;">Payment method:</strong> {{.Payment}}
        </p>
        <p style="font-size:16px;color:#333;">Kind regards,<br/><strong style="color:#0C2340;">{{.Brand}}</strong></p>
      </td>
    </tr>
  </table>
</div>`))

var brokerageTemplate = template.Must(template.New("brokerage").Parse(`
<div style="background:#ffffff;padding:40px 0;font-family:Arial,sans-serif;">
  <table width="600" align="center" cellpadding="0" cellspacing="0" style="border-collapse:collapse;border:1px solid #eee;">
    <tr>
      <td style="padding:22px 28px;border-bottom:1px solid #eee;">
        <h2 style="margin:0;color:#0C2340;font-size:22px;">New visit request</h2>
        <p style="margin:6px 0 0;color:#777;font-size:12px;">Lead {{.RecordID}}</p>
      </td>
    </tr>
    <tr>
      <td style="padding:10px 28px;">
        <h3 style="color:#0C2340;font-size:17px;">Customer</h3>
        <table width="100%" cellpadding="8" style="font-size:14px;color:#333;">
          <tr><td style="font-weight:600;width:200px;">Name</td><td>{{.Profile.FullName}}</td></tr>
          <tr><td style="font-weight:600;">E-mail</td><td>{{.Profile.Email}}</td></tr>
          <tr><td style="font-weight:600;">Phone</td><td>{{if .PhoneE164}}{{.PhoneE164}}{{else}}{{.Profile.Phone}}{{end}}</td></tr>
          <tr><td style="font-weight:600;">Family monthly income</td><td>{{.Profile.FamilyMonthlyIncome}}</td></tr>
        </table>
      </td>
    </tr>
    <tr>
      <td style="padding:10px 28px;">
        <h3 style="color:#0C2340;font-size:17px;">Property</h3>
        <table width="100%" cellpadding="8" style="font-size:14px;color:#333;">
          <tr><td style="font-weight:600;width:200px;">Identifier</td><td>{{.Profile.PropertyIdentifier}}</td></tr>
          <tr><td style="font-weight:600;">Type</td><td>{{.Category}}</td></tr>
          <tr><td style="font-weight:600;">Payment method</td><td>{{.Payment}}</td></tr>
          {{range .PaymentDetails}}<tr><td style="font-weight:600;">{{.Key}}</td><td>{{.Value}}</td></tr>
          {{end}}
        </table>
      </td>
    </tr>
    <tr>
      <td style="padding:10px 28px;">
        <h3 style="color:#0C2340;font-size:17px;">Suggested visit slots</h3>
        <p style="font-size:14px;color:#333;">{{.Profile.VisitDate1}} {{.Profile.VisitTime1}}<br/>{{.Profile.VisitDate2}} {{.Profile.VisitTime2}}</p>
      </td>
    </tr>
    {{if .Score}}
    <tr>
      <td style="padding:10px 28px;">
        <h3 style="color:#0C2340;font-size:17px;">Lead score: {{.Score.Score}}/100</h3>
        <p style="font-size:14px;color:#333;"><strong>{{.Recommendation}}</strong><br/>{{.Score.Analysis}}</p>
        {{if .Score.NextSteps}}<ul style="font-size:14px;color:#333;">{{range .Score.NextSteps}}<li>{{.}}</li>{{end}}</ul>{{end}}
      </td>
    </tr>
    {{end}}
    <tr>
      <td style="padding:20px 28px;">
        <p style="font-size:14px;color:#555;margin:0;">{{if .Profile.HasAcceptedTerms}}The customer accepted the LGPD terms.{{else}}The customer has NOT accepted the LGPD terms.{{end}}</p>
      </td>
    </tr>
    {{if .CustomerWaURL}}
    <tr>
      <td style="padding:20px 28px;text-align:center;">
        <a href="{{.CustomerWaURL}}" style="display:inline-block;padding:14px 24px;background:#0C2340;color:#ffffff;text-decoration:none;border-radius:6px;">Open the lead's WhatsApp</a>
      </td>
    </tr>
    {{end}}
  </table>
</div>`))

func render(t *template.Template, msg LeadMessage) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, msg); err != nil {
		return "", fmt.Errorf("render %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// StaffText is the plain message used for WhatsApp, SMS and the wa.me link.
func StaffText(msg LeadMessage) string {
	p := msg.Profile
	var b strings.Builder
	fmt.Fprintf(&b, "*New visit request - %s*\n\n", msg.Brand)
	fmt.Fprintf(&b, "*Name:* %s\n", p.FullName)
	fmt.Fprintf(&b, "*E-mail:* %s\n", p.Email)
	fmt.Fprintf(&b, "*Phone:* %s\n\n", p.Phone)
	fmt.Fprintf(&b, "*Property:* %s\n", p.PropertyIdentifier)
	fmt.Fprintf(&b, "*Type:* %s\n", msg.Category)
	fmt.Fprintf(&b, "*Payment method:* %s\n\n", msg.Payment)
	b.WriteString("*Suggested visit slots:*\n")
	fmt.Fprintf(&b, "- %s %s\n", p.VisitDate1, p.VisitTime1)
	fmt.Fprintf(&b, "- %s %s\n", p.VisitDate2, p.VisitTime2)
	if msg.Score != nil {
		fmt.Fprintf(&b, "\n*Score:* %d/100 (%s)\n", msg.Score.Score, msg.Recommendation)
	}
	if p.HasAcceptedTerms {
		b.WriteString("\nThe customer accepted the LGPD terms.")
	}
	return strings.TrimSpace(b.String())
}

// SMSText fits in a single SMS segment for typical names.
func SMSText(msg LeadMessage) string {
	text := fmt.Sprintf("%s: new lead %s, %s (%s)", msg.Brand, msg.Profile.FullName, msg.Profile.PropertyIdentifier, msg.Payment)
	if msg.Score != nil {
		text += fmt.Sprintf(", score %d", msg.Score.Score)
	}
	return text
}

// DeepLink opens a WhatsApp chat with number, prefilled with text.
func DeepLink(number, text string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return fmt.Sprintf("https://wa.me/%s?text=%s", digitsOnly(number), encoded)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
