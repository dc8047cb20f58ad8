// Package todoapi provides an HTTP client for the /todos REST API.
//
// # Overview
//
// The client is a stateless protocol adapter: each operation issues exactly
// one HTTP request, decodes the response into Todo records and returns any
// failure as a *TransportError. There is no caching, no retry and no local
// validation of request bodies; the backend is the only authority.
//
// # Endpoints
//
//   - GET    todos/      ListAll
//   - GET    todos/{id}  GetByID
//   - POST   todos/      Create (body without id, 201 with id)
//   - PUT    todos/{id}  Update (body without id, echoes the record)
//   - DELETE todos/{id}  Delete (204, empty body)
//
// Paths are resolved against the configured base URL, so a prefix such as
// http://host/api/ is kept.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and deadline control
//   - Set Accept: application/json and a User-Agent of teedee/0.1
//   - Carry a fresh X-Request-ID so client logs can be matched to backend logs
//   - Inherit the http.Client timeout (10 seconds unless overridden)
//
// Successful response bodies are checked against an embedded JSON Schema of
// the Todo shape before decoding. A backend that answers with the wrong shape
// yields a KindDecode error instead of a half-populated record.
//
// # Error Handling
//
// TransportError.Kind distinguishes:
//
//   - KindNetwork: no response (connection refused, DNS, timeout, cancel)
//   - KindNotFound: 404, also matched by errors.Is(err, ErrNotFound)
//   - KindValidation: 400/422, also matched by errors.Is(err, ErrValidation)
//   - KindStatus: any other non-2xx status
//   - KindDecode: malformed JSON or schema violation
//
// Example error messages:
//   - "execute request: dial tcp 127.0.0.1:8000: connect: connection refused"
//   - "api todos/7 returned status 404: Todo not found"
//   - "decode response: unexpected todo shape: /0/title: expected string, but got number"
//
// # Thread Safety
//
// Client is safe for concurrent use. The underlying http.Client handles
// connection pooling.
package todoapi
