package directory

// Contact is a directory entry for a provider address. The directory is
// loose about which field carries the phone number, so callers fall back to
// scanning Raw when the typed fields are empty.
type Contact struct {
	ID         string                 `json:"id"`
	PushName   string                 `json:"pushName,omitempty"`
	Number     string                 `json:"number,omitempty"`
	RemoteJid  string                 `json:"remoteJid,omitempty"`
	ProfilePic string                 `json:"profilePicUrl,omitempty"`
	Raw        map[string]interface{} `json:"-"`
}

// ProfilePicture is the response to a profile picture lookup.
type ProfilePicture struct {
	ProfilePictureURL string `json:"profilePictureUrl"`
}

// MediaPayload is the response to a media content fetch.
type MediaPayload struct {
	Base64   string `json:"base64"`
	Mimetype string `json:"mimetype,omitempty"`
	FileName string `json:"fileName,omitempty"`
}
