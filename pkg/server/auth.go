package server

import (
	"crypto/subtle"
	"net/http"
)

const loginFormPage = `<!doctype html>
<html>
  <head>
    <meta name="robots" content="noindex, nofollow">
    <link rel="stylesheet" href="https://unpkg.com/mvp.css" />
    <title>Admin Login</title>
  </head>
  <body>
    <main>
      <h1>Admin Login</h1>
      <form method="post" action="/auth/login">
        <label>Username <input name="username" required></label>
        <label>Password <input name="password" type="password" required></label>
        <button type="submit">Log in</button>
      </form>
      <a href="/">Home</a>
    </main>
  </body>
</html>
`

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(loginFormPage))
}

// handleLogin checks admin credentials and sets the session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Malformed form data")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	cfg := s.store.Snapshot().Admin
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.User)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) == 1
	if !userOK || !passOK {
		s.logger.Warn("failed admin login", "username", username, "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.sessions.Issue(username),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cfg.SessionTTL.Std().Seconds()),
	})
	http.Redirect(w, r, "/admin/tokens", http.StatusSeeOther)
}

// handleLogout clears the session cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/auth/login_form", http.StatusSeeOther)
}
