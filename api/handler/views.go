package handler

import (
	"github.com/use-agent/autologin/autologin"
	"github.com/use-agent/autologin/models"
	"github.com/use-agent/autologin/session"
)

// cookieViews lists the cookies of a store that are still valid.
func cookieViews(jar *autologin.CookieStore) []models.CookieView {
	active := jar.Active()
	out := make([]models.CookieView, 0, len(active))
	for _, c := range active {
		v := models.CookieView{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
			HostOnly: c.HostOnly,
		}
		if !c.Expires.IsZero() {
			exp := c.Expires
			v.Expires = &exp
		}
		out = append(out, v)
	}
	return out
}

func formView(f *autologin.Form, cls *autologin.Classification) *models.FormView {
	if f == nil {
		return nil
	}
	v := &models.FormView{
		Index:      f.Index,
		Method:     string(f.Method),
		Action:     f.Action,
		ID:         f.ID,
		Name:       f.Name,
		FieldCount: len(f.Fields),
	}
	if cls != nil {
		v.UsernameField = cls.UsernameField
		v.PasswordField = cls.PasswordField
	}
	return v
}

func submitView(s *autologin.SubmitResult) *models.SubmitView {
	if s == nil {
		return nil
	}
	return &models.SubmitView{
		Method:     string(s.Method),
		ActionURL:  s.ActionURL,
		FinalURL:   s.FinalURL,
		StatusCode: s.StatusCode,
	}
}

func linkViews(links []autologin.LoginLink) []models.Link {
	out := make([]models.Link, 0, len(links))
	for _, l := range links {
		out = append(out, models.Link{Href: l.Href, Text: l.Text})
	}
	return out
}

func sessionResponse(s session.Session) models.SessionResponse {
	return models.SessionResponse{
		Success:        true,
		SessionID:      s.ID,
		URL:            s.URL,
		FormFound:      s.FormFound,
		UsernameMapped: s.UsernameMapped,
		Cookies:        cookieViews(s.Cookies),
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
	}
}
