package config

// DefaultConfiguration is the configuration that will be in effect if no configuration is loaded from any of the expected locations
const DefaultConfiguration = `[rdbms]
dialect=sqlite3
connection-url=ottoai.sqlite3?_foreign_keys=on
connxn-max-idle-time-seconds=0
connxn-max-lifetime-seconds=0
max-idle-connxns=30
max-open-connxns=100
[http]
listener=:8080
read-timeout=240
write-timeout=240
[log]
log-level=debug
filename=
max-file-size-in-mb=200
max-backups=3
max-age-in-days=28
compress-backups=true
[coordination]
lock-store-url=
lock-ttl-in-seconds=30
[recovery]
due-sweep-interval-in-seconds=10
deadline-sweep-interval-in-seconds=60
sweep-batch-size=100
retry-backoff-delays-in-seconds=60,300,900
breaker-failure-threshold=5
breaker-recovery-timeout-in-seconds=30
[sla-defaults]
response-window-in-minutes=30
escalation-window-in-minutes=240
max-retries=3
business-hour-start=8
business-hour-end=20
ai-confidence-threshold=0.75
[outreach]
sms-gateway-url=
ai-drafter-url=
dispatch-timeout-in-seconds=30
[retention]
enabled=false
sweep-interval-in-minutes=60
ledger-retention-in-days=7
item-retention-in-days=30
archive-path=/tmp/ottoai-archive
archive-node-name=node0
remote-archive-url=
remote-file-prefix=
max-archive-file-size-in-mb=100
`
