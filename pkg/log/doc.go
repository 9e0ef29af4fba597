/*
Package log provides mgs's structured logging, wrapping github.com/rs/zerolog.

Init configures the root Logger once at process startup (level, JSON vs.
console output). The cache and drainer packages log through
component-scoped children from WithComponent; grain operations log through
WithStorage and attach the entity id per event, so a single entity's
READ/WRITE/CLEAR and drain activity can be traced across log lines without
string parsing.
*/
package log
