package notifydocumentsready

import (
	"fmt"
	"strings"

	"cif-onboarding/internal/models"
)

const TypeDocumentsReady = "documents_ready"

var documentsReadyTemplate = models.NotificationTemplate{
	Type:    TypeDocumentsReady,
	Subject: "Dossier {{clientName}} : documents réglementaires prêts",
	Body: "Bonjour,\n\n" +
		"Le dossier de {{clientName}} ({{numeroClient}}) est complet à {{overall}}%.\n" +
		"Les documents obligatoires peuvent être générés :\n{{documents}}\n\n" +
		"Documents encore incomplets : {{missingCount}}.",
}

var smsTemplate = "CIF: dossier {{clientName}} prêt ({{readyCount}} documents). Génération possible."

// renderTemplate replaces {{key}} placeholders and drops the ones without data.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}

// htmlBody turns the plain text body into minimal HTML.
func htmlBody(text string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, para := range strings.Split(text, "\n\n") {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(htmlEscaper.Replace(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;")
