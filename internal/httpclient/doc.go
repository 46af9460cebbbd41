// Package httpclient builds and sends the load-test request.
//
// [NewRequestBuilder] validates method, headers and body once; [RequestBuilder.Build]
// then produces a fresh *http.Request per attempt. [NewClient] returns a client
// tuned for many concurrent requests to one host, with optional custom CA,
// insecure TLS and keep-alive control. [Requester] ties the two together and
// implements runner.Requester:
//
//	client, err := httpclient.NewClient(httpclient.ClientOptionsFromConfig(cfg))
//	builder, err := httpclient.NewRequestBuilder(cfg)
//	req := httpclient.NewRequester(client, builder, tracer)
//	resp, err := req.Do(ctx) // resp.ContentLength is bytes read
package httpclient
