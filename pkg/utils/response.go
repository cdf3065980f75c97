package utils

// ResponseData is the JSON envelope of every REST response.
type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded turns an error into a panic picked up by the recovery middleware.
func PanicIfNeeded(err error) {
	if err != nil {
		panic(err)
	}
}
