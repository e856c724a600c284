// Package dto provides data transfer objects for object registry HTTP responses.
package dto

import (
	"time"

	"github.com/allisson/registry/internal/registry/domain"
)

// ObjectMetadataResponse represents one stored object in API responses
type ObjectMetadataResponse struct {
	Namespace   string            `json:"namespace"`
	Object      string            `json:"object"`
	Version     *string           `json:"version,omitempty"`
	Checksum    string            `json:"checksum"`
	Size        int64             `json:"size"`
	ContentType string            `json:"contentType"`
	Labels      map[string]string `json:"labels,omitempty"`
	CreatedBy   string            `json:"createdBy,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// ListObjectsResponse represents the objects of one namespace
type ListObjectsResponse struct {
	Objects []ObjectMetadataResponse `json:"objects"`
}

// ListNamespacesResponse represents the namespaces holding objects
type ListNamespacesResponse struct {
	Namespaces []string `json:"namespaces"`
}

// MapObjectMetadataToResponse converts a domain object to its response form
func MapObjectMetadataToResponse(metadata *domain.ObjectMetadata) ObjectMetadataResponse {
	return ObjectMetadataResponse{
		Namespace:   metadata.Namespace,
		Object:      metadata.Object,
		Version:     metadata.Version,
		Checksum:    metadata.Checksum,
		Size:        metadata.Size,
		ContentType: metadata.ContentType,
		Labels:      metadata.Labels,
		CreatedBy:   metadata.CreatedBy,
		CreatedAt:   metadata.CreatedAt,
	}
}

// MapObjectsToListResponse converts domain objects to a list response
func MapObjectsToListResponse(records []*domain.ObjectMetadata) ListObjectsResponse {
	objects := make([]ObjectMetadataResponse, 0, len(records))
	for _, metadata := range records {
		objects = append(objects, MapObjectMetadataToResponse(metadata))
	}
	return ListObjectsResponse{Objects: objects}
}
