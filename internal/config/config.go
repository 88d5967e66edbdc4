package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *viper.Viper

func init() {
	Conf = viper.New()

	// defaults
	Conf.SetTypeByDefaultValue(true)
	Conf.SetDefault("debug", true)
	Conf.SetDefault("appName", "NSS Membership")
	Conf.SetDefault("addr", ":8080")
	Conf.SetDefault("dbPath", "membership.db")
	Conf.SetDefault("idPrefix", "NSS")
	Conf.SetDefault("secretKey", "k3v9-2jq@x!m7#p0w8zr5t&b1n4c6d2e")
	Conf.SetDefault("sessionTTL", 24*time.Hour)
	Conf.SetDefault("timezone", "Asia/Kathmandu")
	Conf.SetDefault("loginRate", 10) // attempts per minute per client IP
	Conf.SetDefault("secureCookies", false)
	Conf.SetDefault("csrf", true)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		Conf.SetDefault("testMode", true)
	case "PROD":
		Conf.SetDefault("debug", false)
		Conf.SetDefault("secureCookies", true)
	}
	Conf.SetEnvPrefix("NSS")

	// load .env if it exists (ignore if it does not)
	cwd, _ := os.Getwd()
	dotEnvPath := filepath.Join(cwd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	Conf.AutomaticEnv()
}

// Location is the association's local time zone; "today" is always taken there.
func Location() *time.Location {
	loc, err := time.LoadLocation(Conf.GetString("timezone"))
	if err != nil {
		return time.FixedZone("NPT", 5*3600+45*60)
	}
	return loc
}

func IDPrefix() string {
	p := strings.TrimSpace(Conf.GetString("idPrefix"))
	if p == "" {
		return "NSS"
	}
	return strings.ToUpper(p)
}
