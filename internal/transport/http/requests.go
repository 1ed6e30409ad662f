package http

// queryRequest carries a free-text question. The query field is deliberately
// not required: an empty question must reach the service so it can answer
// with its standard fallback result instead of a transport error.
type queryRequest struct {
	Query string `json:"query"`
}

type fetchRequest struct {
	Organization string `json:"organization" validate:"required,custom_id,min=1,max=100"`
	Kind         string `json:"kind" validate:"required,bucket_kind"`
	RangeStart   string `json:"range_start" validate:"required,calendar_date"`
	RangeEnd     string `json:"range_end" validate:"required,calendar_date"`
	Force        bool   `json:"force"`
}

type fetchAllRequest struct {
	Kind       string `json:"kind" validate:"required,bucket_kind"`
	RangeStart string `json:"range_start" validate:"required,calendar_date"`
	RangeEnd   string `json:"range_end" validate:"required,calendar_date"`
	Force      bool   `json:"force"`
}

type deleteBucketRequest struct {
	Organization string `json:"organization" validate:"required,custom_id,min=1,max=100"`
	Kind         string `json:"kind" validate:"required,bucket_kind"`
	BucketKey    string `json:"bucket_key" validate:"required,custom_id,min=1,max=100"`
}
