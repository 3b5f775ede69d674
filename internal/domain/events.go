package domain

const (
	EventUploadAdded   = "upload.added"
	EventUploadUpdated = "upload.updated"
	EventAlbumCreated  = "album.created"
	EventRequestAdded  = "request.added"
)

// Event is dispatched synchronously to every subscriber of Name.
type Event struct {
	Name    string
	Payload any
}

type UploadAddedPayload struct {
	Upload *Upload
}

type UploadUpdatedPayload struct {
	Upload *Upload
	Media  *Media
}

type AlbumCreatedPayload struct {
	Album *Album
	Media *Media
}

type RequestAddedPayload struct {
	Request *Request
}
