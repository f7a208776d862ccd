// internal/pipeline/batch/upload-input/models.go
package uploadinput

type Input struct {
	Path   string `json:"path"`             // file or directory
	Bucket string `json:"bucket,omitempty"` // empty means config default
	Prefix string `json:"prefix,omitempty"` // empty means config default
}

type Output struct {
	Uploaded        bool     `json:"uploaded"`
	ObjectsUploaded int      `json:"objectsUploaded"`
	ObjectsFailed   int      `json:"objectsFailed"`
	FailedKeys      []string `json:"failedKeys,omitempty"`
	Location        string   `json:"location,omitempty"` // s3 URI of the object in single-file mode
}
