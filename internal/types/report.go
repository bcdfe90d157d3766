package types

// AttemptReport describes the outcome of one fetch attempt. Workers post one
// per attempt; the coordinator feeds them to the block detector.
type AttemptReport struct {
	URL        string
	Success    bool
	StatusCode int       // 0 when unknown
	ErrorKind  ErrorKind // empty on success
}

// Page is what the fetch layer hands to the detection engine: the response
// body, headers, status, and the post-redirect URL. NetworkURLs is populated
// by the render path with the request URLs the browser actually issued.
type Page struct {
	Body        []byte
	Headers     map[string]string
	SetCookies  []string // every Set-Cookie value, preserved separately
	StatusCode  int
	FinalURL    string
	NetworkURLs []string
}
