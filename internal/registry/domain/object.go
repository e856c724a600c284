// Package domain defines the core entities for stored objects.
// Objects are opaque byte payloads addressed by a namespace and name,
// optionally versioned, with a metadata record kept alongside the bytes.
package domain

import "time"

// ObjectMetadata describes one stored object without its payload.
type ObjectMetadata struct {
	Namespace   string
	Object      string
	Version     *string
	Checksum    string
	Size        int64
	ContentType string
	Labels      map[string]string
	CreatedBy   string
	CreatedAt   time.Time
}

// StorageKey returns the blob and metadata key for this object.
func (o *ObjectMetadata) StorageKey() string {
	return ObjectKey(o.Namespace, o.Object, o.Version)
}

// ObjectKey builds the canonical storage key `namespace/object[@version]`.
func ObjectKey(namespace, object string, version *string) string {
	key := namespace + "/" + object
	if version != nil && *version != "" {
		key += "@" + *version
	}
	return key
}
