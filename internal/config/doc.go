// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

// Package config loads LMSBridge configuration with Koanf v2.
//
// Sources are layered, later layers overriding earlier ones:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, then config.yaml / /etc/lmsbridge/config.yaml)
//  3. Environment variables (explicit mapping in envTransformFunc)
//
// # LMS Platforms
//
// A platform takes part in scheduled sync only when it is fully configured:
//
//	Moodle   MOODLE_URL + MOODLE_TOKEN
//	Canvas   CANVAS_URL + CANVAS_TOKEN
//	Sakai    SAKAI_URL + SAKAI_USERNAME + SAKAI_PASSWORD
//	Chamilo  CHAMILO_URL + CHAMILO_API_KEY
//
// Partially configured platforms are accepted and simply skipped.
//
// # Durations
//
// Duration settings use Go duration syntax (SYNC_INTERVAL=5m, HTTP_CLIENT_TIMEOUT=30s).
// MOODLE_TIMEOUT_MS is the one exception and is an integer count of milliseconds.
//
// # Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//	if cfg.Moodle.Configured() {
//	    client, err := moodle.New(moodle.Config{
//	        BaseURL: cfg.Moodle.URL,
//	        Token:   cfg.Moodle.Token,
//	        Timeout: cfg.Moodle.Timeout(),
//	    })
//	}
package config
