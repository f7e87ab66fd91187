// Package db provides the embedded CRM schema.
package db

import _ "embed"

// Schema contains the DDL statements for the customers, products, orders
// and order_products tables. Every statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
