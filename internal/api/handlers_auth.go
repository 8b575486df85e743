package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"musicplayer/internal/identity"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "register", err)
		return
	}
	u, err := s.identity.Register(r.Context(), identity.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password1,
		PasswordConfirm: req.Password2,
	})
	if err != nil {
		writeError(w, r, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"detail": "verification e-mail sent",
		"user":   u,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "login", err)
		return
	}
	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" {
		writeError(w, r, "login", errInvalidRequest.WithField("username", "must include either username or email"))
		return
	}
	sess, err := s.identity.Authenticate(r.Context(), identifier, req.Password)
	if err != nil {
		writeError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "refresh", err)
		return
	}
	sess, err := s.identity.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, r, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "logout", err)
		return
	}
	if err := s.identity.Logout(r.Context(), claimsFrom(r.Context()), req.Refresh); err != nil {
		writeError(w, r, "logout", err)
		return
	}
	writeJSON(w, http.StatusOK, detailResponse{Detail: "successfully logged out"})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.identity.CurrentUser(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, "current user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "update profile", err)
		return
	}
	u, err := s.identity.UpdateProfile(r.Context(), claimsFrom(r.Context()).UserID, identity.ProfileUpdate{
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		writeError(w, r, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	var req passwordChangeRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "change password", err)
		return
	}
	err := s.identity.ChangePassword(r.Context(), claimsFrom(r.Context()).UserID, req.OldPassword, req.NewPassword1, req.NewPassword2)
	if err != nil {
		writeError(w, r, "change password", err)
		return
	}
	writeJSON(w, http.StatusOK, detailResponse{Detail: "new password has been saved"})
}

// handlePasswordReset answers 200 whether or not the address is registered.
func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "password reset", err)
		return
	}
	if err := s.identity.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, "password reset", err)
		return
	}
	writeJSON(w, http.StatusOK, detailResponse{Detail: "password reset e-mail has been sent"})
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "password reset confirm", err)
		return
	}
	pw, confirm := req.passwords()
	err := s.identity.ConfirmPasswordReset(r.Context(), identity.ResetConfirm{
		UID:                req.UID,
		Token:              req.Token,
		NewPassword:        pw,
		NewPasswordConfirm: confirm,
	})
	if err != nil {
		writeError(w, r, "password reset confirm", err)
		return
	}
	writeJSON(w, http.StatusOK, detailResponse{Detail: "password has been reset with the new password"})
}

// handleResetRedirect forwards the link from a reset email to the frontend form.
func (s *Server) handleResetRedirect(w http.ResponseWriter, r *http.Request) {
	target := s.identity.ResetRedirectURL(chi.URLParam(r, "uidb64"), chi.URLParam(r, "token"))
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, "verify email", err)
		return
	}
	if _, err := s.identity.VerifyEmail(r.Context(), req.Key); err != nil {
		writeError(w, r, "verify email", err)
		return
	}
	writeJSON(w, http.StatusOK, detailResponse{Detail: "ok"})
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "resend verification", err)
		return
	}
	if err := s.identity.ResendVerification(r.Context(), req.Email); err != nil {
		writeError(w, r, "resend verification", err)
		return
	}
	writeJSON(w, http.StatusOK, detailResponse{Detail: "ok"})
}
