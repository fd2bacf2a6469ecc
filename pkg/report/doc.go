/*
Package report writes the human-readable check status summary.

After every heal tick the writer fetches the agent's check dump and
atomically replaces the report file with a fixed-header table mapping
consul's status words to operator vocabulary: passing is OK, warning is
WARNING, critical is BAD. Login banners and dashboards consume the file
read-only.
*/
package report
