package mail

import (
	"bytes"
	"fmt"
	"text/template"
)

type mailTemplate struct {
	subject string
	body    *template.Template
}

func mustTemplate(subject, body string) mailTemplate {
	return mailTemplate{subject: subject, body: template.Must(template.New(subject).Parse(body))}
}

var (
	twoFactorLogin = mustTemplate("Votre code de connexion TechAnswers", `Bonjour {{.Username}},

Voici votre code de connexion : {{.Code}}

Ce code expire dans {{.Minutes}} minutes. Si vous n'êtes pas à l'origine de cette demande, changez votre mot de passe.

L'équipe TechAnswers
`)
	twoFactorSetup = mustTemplate("Activation de la double authentification", `Bonjour {{.Username}},

Pour activer la double authentification, saisissez le code suivant : {{.Code}}

Ce code expire dans {{.Minutes}} minutes.

L'équipe TechAnswers
`)
	passwordReset = mustTemplate("Réinitialisation de votre mot de passe", `Bonjour {{.Username}},

Pour choisir un nouveau mot de passe, ouvrez le lien suivant :
{{.Link}}

Ce lien est valable {{.Minutes}} minutes.

L'équipe TechAnswers
`)
	newArticle = mustTemplate("Nouvel article : {{.Title}}", `Bonjour {{.Username}},

Un nouvel article vient de paraître dans la catégorie {{.Category}} :

{{.Title}}
{{.Excerpt}}

Lire l'article : {{.Link}}

Vous recevez ce message car vous êtes abonné à cette catégorie.
`)
	newComment = mustTemplate("Nouveau commentaire sur « {{.Title}} »", `Bonjour {{.Username}},

{{.Commenter}} a commenté votre article « {{.Title}} » :

{{.Comment}}

{{.Link}}
`)
	paymentReceipt = mustTemplate("Confirmation de votre achat", `Bonjour {{.Username}},

Merci pour votre achat de l'article « {{.Title}} » ({{.Amount}}).
Votre facture n° {{.Invoice}} est disponible depuis votre espace.

Bonne lecture,
L'équipe TechAnswers
`)
	contactReceived = mustTemplate("Nouveau message de contact : {{.Subject}}", `Message de {{.Name}} <{{.Email}}> :

{{.Message}}
`)
)

func (t mailTemplate) render(to string, data any) (Message, error) {
	var subject, body bytes.Buffer
	st, err := template.New("subject").Parse(t.subject)
	if err != nil {
		return Message{}, fmt.Errorf("parse subject: %w", err)
	}
	if err := st.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}
	return Message{To: to, Subject: subject.String(), Body: body.String()}, nil
}

func TwoFactorCode(to, username, code string, minutes int, setup bool) (Message, error) {
	data := map[string]any{"Username": username, "Code": code, "Minutes": minutes}
	if setup {
		return twoFactorSetup.render(to, data)
	}
	return twoFactorLogin.render(to, data)
}

func PasswordReset(to, username, link string, minutes int) (Message, error) {
	return passwordReset.render(to, map[string]any{"Username": username, "Link": link, "Minutes": minutes})
}

func NewArticle(to, username, title, excerpt, category, link string) (Message, error) {
	return newArticle.render(to, map[string]any{
		"Username": username,
		"Title":    title,
		"Excerpt":  excerpt,
		"Category": category,
		"Link":     link,
	})
}

func NewComment(to, username, commenter, title, comment, link string) (Message, error) {
	return newComment.render(to, map[string]any{
		"Username":  username,
		"Commenter": commenter,
		"Title":     title,
		"Comment":   comment,
		"Link":      link,
	})
}

func PaymentReceipt(to, username, title, amount, invoice string) (Message, error) {
	return paymentReceipt.render(to, map[string]any{
		"Username": username,
		"Title":    title,
		"Amount":   amount,
		"Invoice":  invoice,
	})
}

func ContactReceived(to, name, email, subject, message string) (Message, error) {
	return contactReceived.render(to, map[string]any{
		"Name":    name,
		"Email":   email,
		"Subject": subject,
		"Message": message,
	})
}
