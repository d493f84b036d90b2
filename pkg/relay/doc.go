// Package relay serves the chat and speech relay used by the avatar page.
//
// POST /chat forwards messages to the chat completions API and relays the upstream
// status and body unchanged. POST /tts synthesizes audio through the speech API.
// GET /healthz reports liveness and GET /readyz the optional core runtime warmer.
// Credentials and models come from the environment (see Config).
package relay
