// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteSuffixCreate is the suffix for "create" form routes.
	RouteSuffixCreate = "/create"
	// RouteSuffixEdit is the prefix for edit form routes.
	RouteSuffixEdit = "/edit/{id}"
	// RouteSuffixDelete is the suffix for HTML form delete routes.
	RouteSuffixDelete = "/delete"
	// RouteSuffixNearby is the suffix for the nearby venues query.
	RouteSuffixNearby = "/nearby"

	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"

	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteDashboard is the admin dashboard route.
	RouteDashboard = "/dashboard"
	// RouteAdmin is the admin section prefix.
	RouteAdmin = "/admin"

	// RouteVenues is the venues route, used both for the public JSON listing
	// and, under RouteAdmin, for venue management.
	RouteVenues = "/venues"
	// RouteUsers is the users admin route.
	RouteUsers = "/users"

	// RouteVenuesID is the venues ID route pattern.
	RouteVenuesID = RouteVenues + RouteParamID
	// RouteUsersID is the users ID route pattern.
	RouteUsersID = RouteUsers + RouteParamID

	// RouteHealth is the health check route.
	RouteHealth = "/health"
)

// Redirect targets.
const (
	redirectHome        = RouteRoot
	redirectLogin       = RouteLogin
	redirectDashboard   = RouteDashboard
	redirectAdminVenues = RouteAdmin + RouteVenues
	redirectAdminUsers  = RouteAdmin + RouteUsers

	redirectAdminVenuesCreate = redirectAdminVenues + RouteSuffixCreate
	redirectAdminUsersCreate  = redirectAdminUsers + RouteSuffixCreate
)

// Template names.
const (
	templateHome       = "public/home"
	templateNotFound   = "public/not_found"
	templateLogin      = "auth/login"
	templateDashboard  = "admin/dashboard"
	templateVenuesList = "admin/venues_list"
	templateVenuesForm = "admin/venues_form"
	templateUsersList  = "admin/users_list"
	templateUsersForm  = "admin/users_form"
)

// Flash messages shared between handlers and tests.
const (
	msgLoadVenuesFailed = "Failed to load venues. Please try again."
	msgLoadUsersFailed  = "Failed to load users. Please try again."
	msgInvalidForm      = "Invalid form data"
)
