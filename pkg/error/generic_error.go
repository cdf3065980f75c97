package error

// GenericError is implemented by every error that maps onto an HTTP response.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}
