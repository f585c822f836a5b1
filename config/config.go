package config

import "os"

type Config struct {
	Port            string
	MongoURI        string
	JWTSecret       string
	CloudinaryURL   string
	VapidPublicKey  string
	VapidPrivateKey string
	VapidSubscriber string
	GinMode         string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		MongoURI:        getEnv("MONGODB_URI", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		CloudinaryURL:   getEnv("CLOUDINARY_URL", ""),
		VapidPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
		VapidPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
		VapidSubscriber: getEnv("VAPID_SUBSCRIBER", "mailto:admin@inkwell.local"),
		GinMode:         getEnv("GIN_MODE", "debug"),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
