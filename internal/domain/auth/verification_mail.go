package auth

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

const verificationSubject = "Vérifiez votre email - Météo App"

func verificationLink(baseURL, token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	return strings.TrimRight(baseURL, "/") + "/auth/verify?" + q.Encode()
}

func verificationMessage(to, username, link string) Message {
	text := fmt.Sprintf("Bonjour %s,\n\nMerci de vous être inscrit ! Pour activer votre compte, ouvrez ce lien :\n%s\n\nLe lien expire dans 24 heures.\n", username, link)
	escapedLink := html.EscapeString(link)
	body := fmt.Sprintf(`<div style="max-width: 500px; margin: 0 auto; padding: 40px 20px; font-family: Arial, sans-serif;">
  <h2 style="color: #2563eb; text-align: center;">Météo App</h2>
  <h3>Bonjour %s,</h3>
  <p>Merci de vous être inscrit ! Pour activer votre compte, cliquez sur le bouton ci-dessous :</p>
  <p style="text-align: center;"><a href="%s" style="background: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Vérifier mon email</a></p>
  <p style="color: #999; font-size: 14px; text-align: center;">Si le bouton ne fonctionne pas, copiez ce lien :<br><a href="%s">%s</a></p>
</div>`, html.EscapeString(username), escapedLink, escapedLink, escapedLink)
	return Message{To: to, Subject: verificationSubject, TextBody: text, HTMLBody: body}
}
