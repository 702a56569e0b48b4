// Package demos locates demo directories under a demo root.
//
// A demo is an immediate subdirectory of the root exporting a default UI
// component from its index.js. The root also holds one reserved shared
// configuration file (config.js by default) which is never a demo but is
// always staged alongside the selected demos so relative imports resolve.
package demos
