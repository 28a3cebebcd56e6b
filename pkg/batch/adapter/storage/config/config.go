package config

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`              // Type of storage ("minio", "gcs", "local").
	BucketName      string `yaml:"bucket_name"`       // Default bucket name when a call passes an empty bucket.
	CredentialsFile string `yaml:"credentials_file"`  // Path to a service account key for GCS.
	ProjectID       string `yaml:"project_id"`        // GCS project used when creating buckets.
	BaseDir         string `yaml:"base_dir"`          // Base directory for local file system operations.
	Endpoint        string `yaml:"endpoint"`          // MinIO host:port, or a GCS JSON API base URL (emulators).
	AccessKeyID     string `yaml:"access_key_id"`     // MinIO access key.
	SecretAccessKey string `yaml:"secret_access_key"` // MinIO secret key.
	UseSSL          bool   `yaml:"use_ssl"`           // Use HTTPS for the MinIO endpoint.
	Region          string `yaml:"region"`            // Bucket region; also skips the location lookup in MinIO.
}

// DatasourcesConfig holds a map of named storage configurations.
type DatasourcesConfig map[string]StorageConfig
