// Command storyloom is the CLI for the picture-book page generator: job
// management, one-shot stage generation, the background worker, and
// configuration utilities.
package main
