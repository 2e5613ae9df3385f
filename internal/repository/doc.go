// Package repository holds the storage-agnostic errors shared by the
// repository implementations and the domain services that consume them.
// Repository interfaces live next to the domain types they persist.
package repository
