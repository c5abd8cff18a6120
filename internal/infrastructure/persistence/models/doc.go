// Package models contains GORM persistence models. Domain types stay free of
// ORM tags; models carry the table mapping and convert to and from the domain.
package models
