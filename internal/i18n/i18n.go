// Package i18n resolves user-facing API messages by key and language.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. Error keys equal the error codes of the API envelope.
const (
	KeyValidationFailed    = "validation_failed"
	KeyDuplicateAccount    = "duplicate_account"
	KeyUnconfirmedEmail    = "unconfirmed_email"
	KeyInvalidCredentials  = "invalid_credentials"
	KeyUserNotFound        = "user_not_found"
	KeyInvalidLink         = "invalid_link"
	KeyRecoveryUnavailable = "recovery_unavailable"
	KeyApplicationNotFound = "application_not_found"
	KeyInternalError       = "internal_error"
	KeyBadRequest          = "bad_request"

	KeyRegistered        = "registered"
	KeyLoggedIn          = "logged_in"
	KeyEmailConfirmed    = "email_confirmed"
	KeyResetRequested    = "reset_requested"
	KeyPasswordReset     = "password_reset"
	KeyApplicationQueued = "application_submitted"
)

var supportedTags = []language.Tag{
	language.English,
	language.French,
}

var (
	matcher = language.NewMatcher(supportedTags)
	cat     = buildCatalog()
)

var messages = map[language.Tag]map[string]string{
	language.English: {
		KeyValidationFailed:    "Please correct the highlighted fields.",
		KeyDuplicateAccount:    "Email already registered",
		KeyUnconfirmedEmail:    "Please check your email and click the confirmation link before logging in.",
		KeyInvalidCredentials:  "Invalid credentials",
		KeyUserNotFound:        "User not found",
		KeyInvalidLink:         "This link is invalid or has expired.",
		KeyRecoveryUnavailable: "Password recovery is not available for this account.",
		KeyApplicationNotFound: "Application not found",
		KeyInternalError:       "Internal server error",
		KeyBadRequest:          "Invalid request body",
		KeyRegistered:          "Registration successful. Please check your email to verify your account.",
		KeyLoggedIn:            "Login successful",
		KeyEmailConfirmed:      "Your email has been confirmed. You can now log in.",
		KeyResetRequested:      "If an account exists for this email, a reset link has been sent.",
		KeyPasswordReset:       "Your password has been updated.",
		KeyApplicationQueued:   "Your application has been submitted.",
	},
	language.French: {
		KeyValidationFailed:    "Veuillez corriger les champs indiqués.",
		KeyDuplicateAccount:    "Cette adresse e-mail est déjà enregistrée",
		KeyUnconfirmedEmail:    "Veuillez consulter vos e-mails et cliquer sur le lien de confirmation avant de vous connecter.",
		KeyInvalidCredentials:  "Identifiants invalides",
		KeyUserNotFound:        "Utilisateur introuvable",
		KeyInvalidLink:         "Ce lien est invalide ou a expiré.",
		KeyRecoveryUnavailable: "La récupération du mot de passe n'est pas disponible pour ce compte.",
		KeyApplicationNotFound: "Demande introuvable",
		KeyInternalError:       "Erreur interne du serveur",
		KeyBadRequest:          "Corps de requête invalide",
		KeyRegistered:          "Inscription réussie. Veuillez consulter vos e-mails pour vérifier votre compte.",
		KeyLoggedIn:            "Connexion réussie",
		KeyEmailConfirmed:      "Votre adresse e-mail est confirmée. Vous pouvez maintenant vous connecter.",
		KeyResetRequested:      "Si un compte existe pour cette adresse, un lien de réinitialisation a été envoyé.",
		KeyPasswordReset:       "Votre mot de passe a été mis à jour.",
		KeyApplicationQueued:   "Votre demande a été envoyée.",
	},
}

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, table := range messages {
		for key, msg := range table {
			// SetString only fails on malformed messages
			_ = b.SetString(tag, key, msg)
		}
	}
	return b
}

// Default returns the fallback language.
func Default() language.Tag { return language.English }

// Supported returns the languages with a message table.
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supportedTags))
	copy(tags, supportedTags)
	return tags
}

// Resolve picks the best supported language for an Accept-Language header.
func Resolve(acceptLanguage string) language.Tag {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return Default()
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default()
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default()
	}
	return supportedTags[idx]
}

// Translate returns the message for key in tag, falling back to English and
// then to the key itself.
func Translate(tag language.Tag, key string) string {
	p := message.NewPrinter(tag, message.Catalog(cat))
	return p.Sprintf(key)
}
