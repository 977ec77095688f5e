/*
Package log provides structured logging for warden built on zerolog.

A single global logger is initialized once at process start via Init and
consumed through child loggers (WithComponent, WithService) so every
record carries its origin. Output is console-formatted by default, JSON
when configured, and optionally duplicated to an append-only log file
that the status command tails.
*/
package log
