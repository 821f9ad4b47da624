// Package services defines the external collaborators of the playlist
// generation core and their HTTP implementations.
//
//   - [MediaSource] : the remote, paginated media server the cache mirrors
//     ([PlexService] implements it against a Plex-style HTTP API)
//   - [LLMGateway] : the completion transport used by the generation
//     pipeline ([OpenAIService] implements it for OpenAI-compatible APIs)
//
// Both interfaces exist so the sync orchestrator and the generation
// pipeline can be exercised against in-process fakes.
package services
