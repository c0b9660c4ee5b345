// Package detect is the client for the external image-classification
// backend and the label taxonomy it emits.
package detect
