// Package media holds the encoding option types shared by job submission,
// task recipes, and the worker-facing API.
package media
