// Package models contains the GORM persistence models that map to database tables.
// Domain types stay free of ORM tags; each model converts to and from its
// domain counterpart with ToDomain and <Model>FromDomain.
package models
