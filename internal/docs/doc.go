// Package docs holds consistency checks over the repository's documentation.
// There is no runtime code here; the tests keep the README and the policy
// documents describing the same process.
package docs
