package domain

// KeyPrefix namespaces every key the service writes to the key-value store.
const KeyPrefix = "imageuplift:"

// AcceptedExtensions lists the upload file extensions the pipelines accept.
var AcceptedExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp"}
