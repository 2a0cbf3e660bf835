// Package profile serves the signed-in user's page plus the display name
// and password update endpoints. All routes require a verified session;
// the page redirects to sign-in, the two POST endpoints answer 401 JSON.
package profile
