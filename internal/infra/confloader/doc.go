// Package confloader loads configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Overrides (command line flags)
//  2. Environment variables (KISS_SECTION_KEY)
//  3. YAML configuration file
//  4. Defaults already present in the target struct
//
// Watcher reports changes to the configuration file. Only settings that
// are safe to change at runtime are reapplied by its callers; served
// content is never reloaded.
package confloader
