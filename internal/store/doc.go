// Package store contains refile.Store backends and the factory that builds
// one from configuration.
//
// Each backend returns URLs in its own scheme and only accepts its own URLs
// in Get:
//
//	memory      mem://<store>/<name>
//	filesystem  file:///<root>/chunks/<name>
//	s3          s3://<bucket>/<prefix><name>
//	blob        blob://<store>/<prefix><name>
//	http        whatever the provider returns as secure_url
//
// Failures that retrying cannot fix wrap refile.ErrPermanent.
package store
