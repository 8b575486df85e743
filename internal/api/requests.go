package api

// Request bodies. Read-only fields (ids, owners, timestamps) are absent so a
// client cannot set them.

type registerRequest struct {
	Username  string `json:"username" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password1 string `json:"password1" validate:"required"`
	Password2 string `json:"password2" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type logoutRequest struct {
	Refresh string `json:"refresh"`
}

type profileRequest struct {
	Username  *string `json:"username" validate:"omitempty,max=150"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=500"`
}

type passwordChangeRequest struct {
	OldPassword  string `json:"old_password" validate:"required"`
	NewPassword1 string `json:"new_password1" validate:"required"`
	NewPassword2 string `json:"new_password2" validate:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// passwordResetConfirmRequest accepts both naming schemes for the new
// password pair.
type passwordResetConfirmRequest struct {
	UID                string `json:"uid" validate:"required"`
	Token              string `json:"token" validate:"required"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
	NewPassword1       string `json:"new_password1"`
	NewPassword2       string `json:"new_password2"`
}

func (p passwordResetConfirmRequest) passwords() (string, string) {
	pw, confirm := p.NewPassword, p.NewPasswordConfirm
	if pw == "" {
		pw = p.NewPassword1
	}
	if confirm == "" {
		confirm = p.NewPassword2
	}
	return pw, confirm
}

type verifyEmailRequest struct {
	Key string `json:"key" validate:"required"`
}

type resendEmailRequest struct {
	Email string `json:"email"`
}

type songRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Artist      string `json:"artist" validate:"required,max=255"`
	Album       string `json:"album" validate:"max=255"`
	FileURL     string `json:"file_url" validate:"required,url,max=500"`
	CoverArtURL string `json:"cover_art_url" validate:"omitempty,url,max=500"`
	Duration    int    `json:"duration" validate:"required,gt=0"`
}

type songPatchRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Artist      *string `json:"artist" validate:"omitempty,max=255"`
	Album       *string `json:"album" validate:"omitempty,max=255"`
	FileURL     *string `json:"file_url" validate:"omitempty,url,max=500"`
	CoverArtURL *string `json:"cover_art_url" validate:"omitempty,url,max=500"`
	Duration    *int    `json:"duration" validate:"omitempty,gt=0"`
}

type playlistRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

type playlistPatchRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

type addSongRequest struct {
	SongID string `json:"song_id" validate:"required,uuid"`
	Order  *int   `json:"order" validate:"omitempty,min=1,max=1000000"`
}

type moveSongRequest struct {
	SongID string `json:"song_id" validate:"required,uuid"`
	Order  int    `json:"order" validate:"required,min=1,max=1000000"`
}

type recordPlayRequest struct {
	SongID string `json:"song_id" validate:"required,uuid"`
}
