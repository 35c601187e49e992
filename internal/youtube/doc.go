// Package youtube talks to YouTube on behalf of the pipeline: it extracts
// video ids from URLs, resolves video metadata through oEmbed, discovers the
// caption tracks of a video and downloads their text.
//
// Outbound requests share one rate limiter, and metadata and caption track
// lists are kept in the shared TTL cache.
package youtube
