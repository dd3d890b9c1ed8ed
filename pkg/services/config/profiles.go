package config

import (
	"context"
	"fmt"

	"gopkg.in/ini.v1"
)

// Profile is one section of a credentials file, e.g.
//
//	[shop-1]
//	identity = owner@example.com
//	secret = ...
//	container_id = 1AbC...
type Profile struct {
	Name         string
	Identity     string
	Secret       string
	Backend      string
	ContainerID  string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetProfile(ctx context.Context, profile string) (*Profile, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials file: %w", err)
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetProfile(_ context.Context, profile string) (*Profile, error) {
	section, err := cr.cfg.GetSection(profile)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found: %w", profile, err)
	}

	return &Profile{
		Name:         profile,
		Identity:     section.Key("identity").String(),
		Secret:       section.Key("secret").String(),
		Backend:      section.Key("backend").String(),
		ContainerID:  section.Key("container_id").String(),
		ClientID:     section.Key("client_id").String(),
		ClientSecret: section.Key("client_secret").String(),
		RefreshToken: section.Key("refresh_token").String(),
	}, nil
}

// settings turns the non-empty fields into a nested configuration map.
func (p *Profile) settings() map[string]any {
	console := map[string]any{}
	storage := map[string]any{}
	drive := map[string]any{}

	set := func(m map[string]any, key, value string) {
		if value != "" {
			m[key] = value
		}
	}
	set(console, "identity", p.Identity)
	set(console, "secret", p.Secret)
	set(storage, "backend", p.Backend)
	set(storage, "container_id", p.ContainerID)
	set(drive, "client_id", p.ClientID)
	set(drive, "client_secret", p.ClientSecret)
	set(drive, "refresh_token", p.RefreshToken)
	if len(drive) > 0 {
		storage["drive"] = drive
	}

	return map[string]any{"console": console, "storage": storage}
}
