// Package article defines Article, the record type the pyco command line
// manages. Its descriptor is registered at package initialization under the
// partition name "Article".
package article
