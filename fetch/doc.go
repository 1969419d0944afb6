// Package fetch retrieves artifact bytes for the loaders.
//
// A Fetcher turns a Request into the raw artifact payload. Non-success
// responses become errors.KindNetwork errors carrying the URL and status
// code; nothing is retried.
//
//	HTTP         net/http, relative URLs resolved against a base URL
//	ObjectStore  s3://bucket/key objects through an S3-compatible endpoint
//	Router       picks a Fetcher by URL scheme
//
// Requests flagged WorkerScript carry the "Service-Worker: script" header so
// a worker-aware origin can tell module loads apart from ordinary fetches.
package fetch
