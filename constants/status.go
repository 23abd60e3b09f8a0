package constants

// Provenance tags how extracted text was obtained from a document.
type Provenance string

const (
	ProvenanceDirect       Provenance = "direct"
	ProvenanceOCRPrimary   Provenance = "ocr-primary"
	ProvenanceOCRSecondary Provenance = "ocr-secondary"
	ProvenanceNone         Provenance = "none"
)

// RoutePath identifies which inference strategy produced a candidate.
type RoutePath string

const (
	TextPath     RoutePath = "text-path"
	DocumentPath RoutePath = "document-path"
)

// Upload statuses persisted by the bookkeeping store.
type UploadStatus string

const (
	UploadReceived  UploadStatus = "RECEIVED"
	UploadDiagnosed UploadStatus = "DIAGNOSED"
	UploadFailed    UploadStatus = "FAILED"
)
