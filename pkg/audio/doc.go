// Package audio is the umbrella for the audio pipeline sub-packages:
//
//   - pcm: raw sample formats and chunk types
//   - resampler: sample rate conversion and stereo downmix
//   - capture: microphone-style sources chunked into a bounded stream
package audio
