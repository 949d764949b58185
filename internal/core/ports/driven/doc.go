// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Embeds guidance sections and queries
//   - LLMService: Completes contextualize and generate prompts
//   - GuidanceStore: Persists guidance index generations
//
// # Optional Interfaces
//
// These can be nil - the application falls back to defaults:
//
//   - PromptStore: User-editable prompt templates
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
